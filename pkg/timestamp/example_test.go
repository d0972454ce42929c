package timestamp_test

import (
	"fmt"
	"time"

	"github.com/stella-systems/stellanow-sdk-go/pkg/timestamp"
)

// ExampleFormat demonstrates the wire representation of an origin date
func ExampleFormat() {
	t := time.Date(2024, 3, 1, 9, 15, 42, 123456789, time.UTC)
	fmt.Println(timestamp.Format(t))
	// Output: 2024-03-01T09:15:42.123456Z
}

// ExampleParse demonstrates reading a timestamp with an offset
func ExampleParse() {
	t, err := timestamp.Parse("2024-03-01T10:15:42.5+01:00")
	if err != nil {
		panic(err)
	}
	fmt.Println(timestamp.Format(t))
	// Output: 2024-03-01T09:15:42.500000Z
}
