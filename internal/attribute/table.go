package attribute

// EnumTable is the bidirectional lookup table of a select capability, mapping
// raw enum codes to human labels and back. Both directions are built from the
// same schema entry so that encode and decode stay consistent.
//
// The table is immutable after construction.
type EnumTable struct {
	codeToLabel map[int64]string
	labelToCode map[string]int64
	labels      []string
}

// NewEnumTable builds a table from parallel code and label slices.
// Extra entries in the longer slice are ignored. On duplicate codes or labels
// the first occurrence wins, matching the schema's declared order.
func NewEnumTable(codes []int64, labels []string) *EnumTable {
	n := len(codes)
	if len(labels) < n {
		n = len(labels)
	}

	t := &EnumTable{
		codeToLabel: make(map[int64]string, n),
		labelToCode: make(map[string]int64, n),
		labels:      make([]string, 0, n),
	}

	for i := 0; i < n; i++ {
		if _, ok := t.codeToLabel[codes[i]]; !ok {
			t.codeToLabel[codes[i]] = labels[i]
		}
		if _, ok := t.labelToCode[labels[i]]; !ok {
			t.labelToCode[labels[i]] = codes[i]
			t.labels = append(t.labels, labels[i])
		}
	}

	return t
}

// Decode maps a raw enum code to its label.
func (t *EnumTable) Decode(code int64) (string, bool) {
	label, ok := t.codeToLabel[code]
	return label, ok
}

// Encode maps a label back to its raw enum code.
func (t *EnumTable) Encode(label string) (int64, bool) {
	code, ok := t.labelToCode[label]
	return code, ok
}

// Labels returns the labels in schema order.
func (t *EnumTable) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// Len returns the number of label entries.
func (t *EnumTable) Len() int {
	return len(t.labels)
}
