package alloc

import "fmt"

const (
	DefaultMinID       = 1
	DefaultMaxID       = 200
	DefaultMinSuffix   = 2
	DefaultMaxSuffix   = 253
	DefaultMinLANBlock = 10
	DefaultMaxLANBlock = 209
	DefaultLANFormat   = "192.168.%d.0/24"
)

// Range is an inclusive integer domain.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Size returns the number of values in r.
func (r Range) Size() int {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min + 1
}

// Contains reports whether v lies in r.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Universe bounds the three allocation axes.
type Universe struct {
	IDs       Range
	Suffixes  Range
	LANBlocks Range
	// LANFormat maps a block index to its CIDR, with a single %d verb.
	LANFormat string
}

// DefaultUniverse returns the production bounds.
func DefaultUniverse() Universe {
	return Universe{
		IDs:       Range{Min: DefaultMinID, Max: DefaultMaxID},
		Suffixes:  Range{Min: DefaultMinSuffix, Max: DefaultMaxSuffix},
		LANBlocks: Range{Min: DefaultMinLANBlock, Max: DefaultMaxLANBlock},
		LANFormat: DefaultLANFormat,
	}
}

// LANBlock renders block index n as a CIDR string.
func (u Universe) LANBlock(n int) string {
	return fmt.Sprintf(u.LANFormat, n)
}

// Validate checks that every axis is non-empty.
func (u Universe) Validate() error {
	if u.IDs.Size() == 0 {
		return fmt.Errorf("id range %d-%d is empty", u.IDs.Min, u.IDs.Max)
	}
	if u.Suffixes.Size() == 0 {
		return fmt.Errorf("suffix range %d-%d is empty", u.Suffixes.Min, u.Suffixes.Max)
	}
	if u.Suffixes.Min < 1 || u.Suffixes.Max > 254 {
		return fmt.Errorf("suffix range %d-%d must stay within 1-254", u.Suffixes.Min, u.Suffixes.Max)
	}
	if u.LANBlocks.Size() == 0 {
		return fmt.Errorf("lan block range %d-%d is empty", u.LANBlocks.Min, u.LANBlocks.Max)
	}
	return nil
}
