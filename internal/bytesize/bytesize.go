// Package bytesize provides a byte count type that unmarshals from
// human-readable strings such as "4Ki", "16Ki", "1MB" or plain numbers,
// for use in configuration files.
package bytesize

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes.
//
// Accepted textual forms:
//   - Plain numbers: 4096, 16384
//   - Binary units (×1024): Ki/KiB, Mi/MiB, Gi/GiB
//   - Decimal units (×1000): K/KB, M/MB, G/GB
//   - Bytes: B
type ByteSize int64

const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
)

// Parse converts a human-readable byte size string into a ByteSize.
func Parse(s string) (ByteSize, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	split := len(trimmed)
	for i, r := range trimmed {
		if (r < '0' || r > '9') && r != '.' {
			split = i
			break
		}
	}

	numStr := trimmed[:split]
	unitStr := strings.TrimSpace(trimmed[split:])

	multiplier, err := unitMultiplier(unitStr)
	if err != nil {
		return 0, err
	}

	if strings.Contains(numStr, ".") {
		num, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid byte size %q", s)
		}
		return ByteSize(num * float64(multiplier)), nil
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	return ByteSize(num) * multiplier, nil
}

func unitMultiplier(unit string) (ByteSize, error) {
	switch strings.ToLower(unit) {
	case "", "b":
		return B, nil
	case "k", "kb":
		return KB, nil
	case "m", "mb":
		return MB, nil
	case "g", "gb":
		return GB, nil
	case "ki", "kib":
		return KiB, nil
	case "mi", "mib":
		return MiB, nil
	case "gi", "gib":
		return GiB, nil
	default:
		return 0, fmt.Errorf("unknown byte size unit %q", unit)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so ByteSize can be
// used directly in structs decoded with mapstructure.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// String renders the size with the largest binary unit that divides it
// evenly, falling back to plain bytes.
func (b ByteSize) String() string {
	switch {
	case b >= GiB && b%GiB == 0:
		return fmt.Sprintf("%dGi", b/GiB)
	case b >= MiB && b%MiB == 0:
		return fmt.Sprintf("%dMi", b/MiB)
	case b >= KiB && b%KiB == 0:
		return fmt.Sprintf("%dKi", b/KiB)
	default:
		return fmt.Sprintf("%d", int64(b))
	}
}

// Int returns the size as an int.
func (b ByteSize) Int() int {
	return int(b)
}

// Int64 returns the size as an int64.
func (b ByteSize) Int64() int64 {
	return int64(b)
}
