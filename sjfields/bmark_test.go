package sjfields_test

import (
	"fmt"
	"testing"

	"github.com/spanjson/spanjson-go/sjfields"
)

func seedCache(b *testing.B, n int) *sjfields.Cache {
	b.Helper()
	fields := make([]sjfields.Field, n)
	for i := range fields {
		fields[i] = sjfields.F(fmt.Sprintf("field%02d", i), sjfields.String(fmt.Sprintf("value%02d", i)))
	}
	c, err := sjfields.New(fields)
	if err != nil {
		b.Fatal(err)
	}
	return c
}

// The point of the splice design: updating one field of many does not
// re-encode the others.
func BenchmarkRecordReplaceOneOfTwenty(b *testing.B) {
	c := seedCache(b, 20)
	updates := [2][]sjfields.Field{
		{sjfields.F("field10", sjfields.String("AAAAAAA"))},
		{sjfields.F("field10", sjfields.String("BBBBBBB"))},
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Record(updates[i&1]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSnapshotCopy(b *testing.B) {
	c := seedCache(b, 20)
	var dst []byte
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dst = append(dst[:0], c.Snapshot()...)
	}
	_ = dst
}
