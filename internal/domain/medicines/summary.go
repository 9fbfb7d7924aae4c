package medicines

import "sort"

// LowStockThreshold: con esta cantidad de dosis restantes o menos, el
// tratamiento se marca como "low".
const LowStockThreshold = 3

type MedicineSummary struct {
	MedicineID  string
	Name        string
	Quantity    int
	TimesPerDay int

	TotalDoses       int
	Taken            int
	Skipped          int
	Remaining        int
	RemainingPercent float64
	Low              bool

	// Compliance = taken / (taken + skipped); 0 sin acciones.
	Compliance float64
}

type MemberSummary struct {
	Relation   string
	Medicines  int
	Taken      int
	Skipped    int
	Compliance float64
	Items      []MedicineSummary
}

func Summarize(m Medicine) MedicineSummary {
	total := m.Quantity * len(m.Times)
	remaining := total - m.Taken

	out := MedicineSummary{
		MedicineID:  m.ID,
		Name:        m.Name,
		Quantity:    m.Quantity,
		TimesPerDay: len(m.Times),
		TotalDoses:  total,
		Taken:       m.Taken,
		Skipped:     m.Skipped,
		Remaining:   remaining,
		Low:         remaining <= LowStockThreshold,
		Compliance:  compliance(m.Taken, m.Skipped),
	}
	if total > 0 {
		out.RemainingPercent = float64(remaining) / float64(total) * 100
	}
	return out
}

// SummarizeByRelation agrupa por familiar, ordenado por Relation.
func SummarizeByRelation(meds []Medicine) []MemberSummary {
	byRel := map[string]*MemberSummary{}
	for _, m := range meds {
		ms, ok := byRel[m.Relation]
		if !ok {
			ms = &MemberSummary{Relation: m.Relation, Items: []MedicineSummary{}}
			byRel[m.Relation] = ms
		}
		ms.Medicines++
		ms.Taken += m.Taken
		ms.Skipped += m.Skipped
		ms.Items = append(ms.Items, Summarize(m))
	}

	out := make([]MemberSummary, 0, len(byRel))
	for _, ms := range byRel {
		ms.Compliance = compliance(ms.Taken, ms.Skipped)
		out = append(out, *ms)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Relation < out[j].Relation })
	return out
}

func compliance(taken, skipped int) float64 {
	if taken+skipped <= 0 {
		return 0
	}
	return float64(taken) / float64(taken+skipped)
}
