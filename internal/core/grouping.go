package core

// GroupOptions controls how records are grouped.
type GroupOptions struct {
	ByCode       bool // Nest code groups under each discipline
	Alphabetical bool // Sort group labels instead of keeping first-seen order
}

// CodeGroup is a code-level group nested under a discipline.
type CodeGroup struct {
	Key     GroupKey
	Code    string
	Records []ElementRecord
}

// DisciplineGroup is a top-level group. Records holds every member in order;
// Codes is populated only when grouping by code.
type DisciplineGroup struct {
	Key        GroupKey
	Discipline string
	Records    []ElementRecord
	Codes      []*CodeGroup
}

// GroupIndex is the ordered two-level grouping of a record list.
type GroupIndex struct {
	ByCode      bool
	Disciplines []*DisciplineGroup
}

// Len returns the total number of records across all groups.
func (g *GroupIndex) Len() int {
	n := 0
	for _, d := range g.Disciplines {
		n += len(d.Records)
	}
	return n
}

// Discipline returns the group with the given label.
func (g *GroupIndex) Discipline(name string) (*DisciplineGroup, bool) {
	for _, d := range g.Disciplines {
		if d.Discipline == name {
			return d, true
		}
	}
	return nil, false
}

// BuildGroups groups records by discipline and, optionally, by code.
// Absent classification resolves to the sentinel labels, so every record
// lands in exactly one group.
func BuildGroups(records []ElementRecord, opts GroupOptions) *GroupIndex {
	idx := &GroupIndex{ByCode: opts.ByCode}

	byName := make(map[string]*DisciplineGroup)
	codesByKey := make(map[GroupKey]*CodeGroup)

	for _, rec := range records {
		disc := rec.DisciplineLabel()
		dg, ok := byName[disc]
		if !ok {
			dg = &DisciplineGroup{Key: DisciplineKey(disc), Discipline: disc}
			byName[disc] = dg
			idx.Disciplines = append(idx.Disciplines, dg)
		}
		dg.Records = append(dg.Records, rec)

		if !opts.ByCode {
			continue
		}

		code := rec.CodeLabel()
		key := CodeKey(disc, code)
		cg, ok := codesByKey[key]
		if !ok {
			cg = &CodeGroup{Key: key, Code: code}
			codesByKey[key] = cg
			dg.Codes = append(dg.Codes, cg)
		}
		cg.Records = append(cg.Records, rec)
	}

	if opts.Alphabetical {
		sortGroups(idx)
	}
	return idx
}

// sortGroups orders discipline groups, and code groups within each, by locale comparison.
func sortGroups(idx *GroupIndex) {
	labels := make([]string, len(idx.Disciplines))
	byName := make(map[string]*DisciplineGroup, len(idx.Disciplines))
	for i, d := range idx.Disciplines {
		labels[i] = d.Discipline
		byName[d.Discipline] = d
	}
	sortLabels(labels)
	for i, label := range labels {
		idx.Disciplines[i] = byName[label]
	}

	for _, d := range idx.Disciplines {
		if len(d.Codes) < 2 {
			continue
		}
		codes := make([]string, len(d.Codes))
		byCode := make(map[string]*CodeGroup, len(d.Codes))
		for i, c := range d.Codes {
			codes[i] = c.Code
			byCode[c.Code] = c
		}
		sortLabels(codes)
		for i, code := range codes {
			d.Codes[i] = byCode[code]
		}
	}
}
