package model

// ContainsID reports whether id is in ids.
func ContainsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AppendID appends id unless already present. The bool reports whether ids changed.
func AppendID(ids []int64, id int64) ([]int64, bool) {
	if ContainsID(ids, id) {
		return ids, false
	}
	return append(ids, id), true
}

// RemoveID drops every occurrence of id. The bool reports whether ids changed.
func RemoveID(ids []int64, id int64) ([]int64, bool) {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out, len(out) != len(ids)
}
