package doses

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Formato de hora de dosis guardado por la app: "8:00AM", "8:00 pm".
// Es contrato con los datos existentes: sin segundos, sin formato 24h.
var doseTimeRe = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)

// ParseClock convierte "h:mm AM|PM" a hora (0-23) y minutos.
// Horas fuera de 1-12 o minutos fuera de 0-59 no son válidos.
func ParseClock(raw string) (hour, minute int, ok bool) {
	m := doseTimeRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, false
	}

	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if h < 1 || h > 12 || mm > 59 {
		return 0, 0, false
	}

	pm := strings.EqualFold(m[3], "PM")
	switch {
	case pm && h < 12:
		h += 12
	case !pm && h == 12:
		h = 0
	}
	return h, mm, true
}

// ParseDoseTime ubica raw en el día calendario de day (misma zona horaria).
func ParseDoseTime(raw string, day time.Time) (time.Time, bool) {
	h, mm, ok := ParseClock(raw)
	if !ok {
		return time.Time{}, false
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, mm, 0, 0, day.Location()), true
}
