// Package doses deriva el estado diario de las dosis de una medicina
// (Due / Next / Taken) y decide cuándo pedir un recordatorio.
//
// Todo es puro: el llamador inyecta un único "now" por pasada y el paquete
// nunca lee el reloj ni devuelve errores. Input inválido degrada a
// "nada pendiente".
package doses

import "time"

type Status string

const (
	StatusDue   Status = "Due"
	StatusNext  Status = "Next"
	StatusTaken Status = "Taken"
)

// ReminderLead es cuánto antes de la dosis se dispara el recordatorio.
const ReminderLead = 5 * time.Minute

// Schedule es la parte de una medicina que mira el motor.
type Schedule struct {
	// Times en orden de administración (no necesariamente cronológico).
	Times []string

	// Taken es acumulado (todos los días).
	Taken int

	LastTakenAt *time.Time
}

// DoseStatus es el resultado para una medicina en un instante.
type DoseStatus struct {
	Status Status

	// CurrentTime es la hora (tal como está guardada) a la que se refiere
	// Status. Vacío cuando Status es Taken.
	CurrentTime string

	TakenToday int
}

// ReminderRequest es el pedido de recordatorio para la próxima dosis.
type ReminderRequest struct {
	DoseTime  string
	DoseAt    time.Time
	TriggerAt time.Time
}

// Evaluation agrupa el resultado de Evaluate.
type Evaluation struct {
	Status   DoseStatus
	Reminder *ReminderRequest
}

type dose struct {
	raw string
	at  time.Time
}

// DayBounds devuelve [inicio, fin] del día calendario de now en su zona.
func DayBounds(now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end = start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

// TakenToday interpreta el contador acumulado como "dosis manejadas hoy"
// solo si la última acción fue hoy; si no, el día arranca en 0.
func TakenToday(now time.Time, s Schedule) int {
	if s.LastTakenAt == nil || s.Taken <= 0 {
		return 0
	}
	start, end := DayBounds(now)
	last := *s.LastTakenAt
	if last.Before(start) || last.After(end) {
		return 0
	}
	return s.Taken
}

// Evaluate clasifica la medicina para now y, si corresponde, devuelve el
// recordatorio de la próxima dosis (como mucho uno).
//
// El recorrido es en orden del slice desde el índice takenToday: la primera
// dosis con hora <= now es Due y corta el recorrido; si no hay ninguna, la
// primera dosis futura encontrada es Next.
func Evaluate(now time.Time, s Schedule) (DoseStatus, *ReminderRequest) {
	out := DoseStatus{
		Status:     StatusTaken,
		TakenToday: TakenToday(now, s),
	}

	list := todayDoses(now, s.Times)

	var next *dose
	for i := out.TakenToday; i < len(list); i++ {
		d := list[i]
		if !d.at.After(now) {
			out.Status = StatusDue
			out.CurrentTime = d.raw
			return out, nil
		}
		if next == nil {
			next = &list[i]
		}
	}

	if next == nil {
		return out, nil
	}

	out.Status = StatusNext
	out.CurrentTime = next.raw

	trigger := next.at.Add(-ReminderLead)
	if !trigger.After(now) {
		return out, nil
	}
	return out, &ReminderRequest{
		DoseTime:  next.raw,
		DoseAt:    next.at,
		TriggerAt: trigger,
	}
}

// EvaluateAll evalúa varias medicinas con el mismo now.
func EvaluateAll(now time.Time, schedules []Schedule) []Evaluation {
	out := make([]Evaluation, 0, len(schedules))
	for _, s := range schedules {
		st, rem := Evaluate(now, s)
		out = append(out, Evaluation{Status: st, Reminder: rem})
	}
	return out
}

// todayDoses descarta las horas que no parsean; los índices siguientes se
// corren (takenToday indexa esta lista, no Times).
func todayDoses(now time.Time, times []string) []dose {
	out := make([]dose, 0, len(times))
	for _, raw := range times {
		at, ok := ParseDoseTime(raw, now)
		if !ok {
			continue
		}
		out = append(out, dose{raw: raw, at: at})
	}
	return out
}
