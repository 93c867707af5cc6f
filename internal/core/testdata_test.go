package core

// rec builds a record for tests.
func rec(id int64, discipline, code string) ElementRecord {
	return ElementRecord{DbID: id, Discipline: discipline, Code: code}
}

// withVolume sets Volume on a test record.
func withVolume(r ElementRecord, v string) ElementRecord {
	r.Volume = v
	return r
}

// sampleRecords is a mixed dataset used across tests. It includes absent
// classification and unsorted disciplines.
func sampleRecords() []ElementRecord {
	return []ElementRecord{
		{DbID: 10, Discipline: "Structural", Code: "B2", TypeName: "Beam 200", Volume: "1.5", Length: "4"},
		{DbID: 11, Discipline: "Architectural", Code: "W1", TypeName: "Wall Type A", Volume: "3", Area: "12"},
		{DbID: 12, Discipline: "Structural", Code: "B1", TypeName: "Beam 300", Volume: "2.5", Length: "6"},
		{DbID: 13, Discipline: "", Code: "", TypeName: "Unknown", Volume: "not specified"},
		{DbID: 14, Discipline: "Architectural", Code: "W1", TypeName: "Wall Type B", Description: "exterior", Volume: "2", Area: "8"},
		{DbID: 15, Discipline: "Structural", Code: "B2", TypeName: "Column", Volume: "", Length: "3"},
	}
}

func dbIDs(records []ElementRecord) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.DbID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
