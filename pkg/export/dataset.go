package export

// Dataset is a table ready for rendering. Footer, when set, is rendered as a summary row.
type Dataset struct {
	Title    string
	Subtitle string
	Headers  []string
	Rows     [][]string
	Footer   []string
}

func (d Dataset) width() int {
	return len(d.Headers)
}

func pad(record []string, width int) []string {
	if len(record) >= width {
		return record[:width]
	}
	out := make([]string, width)
	copy(out, record)
	return out
}
