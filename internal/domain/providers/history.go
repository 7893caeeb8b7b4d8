package providers

// HistoryWriter receives the serialized query string of every catalog state
// change. Filter, sort, search and price changes replace the current entry;
// explicit page navigation pushes a new one.
type HistoryWriter interface {
	Replace(rawQuery string)
	Push(rawQuery string)
}
