package hashtable

import (
	"strconv"

	"github.com/duskbound/xylu/internal/xystream"
)

// Format writes a compact, human-readable dump of the table's control
// array to sink: a header with total/count, then one character per slot
// ('.' EMPTY, 'x' DELETED, '#' occupied). It uses only the streaming-sink
// capability spec.md §6 asks for (append byte, append byte range, append
// fill, reserve), not any concrete writer type.
func (t *Table[K, V]) Format(sink xystream.Sink) error {
	sink.Reserve(t.total + 32)

	header := "total=" + strconv.Itoa(t.total) + " count=" + strconv.Itoa(t.count) + " "
	if err := sink.AppendBytes([]byte(header)); err != nil {
		return err
	}

	for i := 0; i < t.total; i++ {
		var c byte
		switch {
		case t.meta[i] == Empty:
			c = '.'
		case t.meta[i] == Deleted:
			c = 'x'
		default:
			c = '#'
		}
		if err := sink.AppendByte(c); err != nil {
			return err
		}
	}
	return sink.AppendByte('\n')
}
