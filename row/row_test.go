package row

import (
	"reflect"
	"strings"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orig := Row{ID: 0xdeadbeef, Name: "hello", Description: "a short description"}
	buf := make([]byte, Size)
	require.NoError(t, Encode(orig, buf))

	got, err := Decode(buf)
	require.NoError(t, err)
	if !reflect.DeepEqual(orig, got) {
		t.Fatalf("round trip mismatch: got %+v; want %+v", got, orig)
	}
}

func TestEncodeZeroPadsUnusedBytes(t *testing.T) {
	buf := make([]byte, Size)
	require.NoError(t, Encode(Row{ID: 7, Name: "ab", Description: "cd"}, buf))

	if got := string(buf[nameOffset+2 : nameOffset+NameSize]); got != strings.Repeat("\x00", NameSize-2) {
		t.Errorf("expected zero padding after name, got %q", got)
	}
	if got := string(buf[descriptionOffset+2 : descriptionOffset+DescriptionSize]); got != strings.Repeat("\x00", DescriptionSize-2) {
		t.Errorf("expected zero padding after description, got %q", got)
	}
}

func TestEncodeRejectsOversizedFields(t *testing.T) {
	buf := make([]byte, Size)

	err := Encode(Row{ID: 1, Name: strings.Repeat("x", NameSize+1), Description: "d"}, buf)
	require.ErrorIs(t, err, ErrNameTooLong)

	err = Encode(Row{ID: 1, Name: "n", Description: strings.Repeat("x", DescriptionSize+1)}, buf)
	require.ErrorIs(t, err, ErrDescriptionTooLong)
}

func TestEncodeAcceptsMaxWidthFields(t *testing.T) {
	buf := make([]byte, Size)
	r := Row{ID: 1, Name: strings.Repeat("n", NameSize), Description: strings.Repeat("d", DescriptionSize)}
	require.NoError(t, Encode(r, buf))

	got, err := Decode(buf)
	require.NoError(t, err)
	if got.Name != r.Name || got.Description != r.Description {
		t.Fatalf("max-width fields not preserved: got %+v", got)
	}
}

// nameStr and descStr let distinct gofuzz Funcs entries bound each
// field to its own legal width, rather than both strings sharing one
// generator keyed on the plain string type.
type nameStr string
type descStr string

func randField(maxLen int) func(*string, fuzz.Continue) {
	return func(s *string, c fuzz.Continue) {
		n := c.Intn(maxLen + 1)
		b := make([]byte, n)
		for i := range b {
			b[i] = byte('a' + c.Intn(26))
		}
		*s = string(b)
	}
}

// TestEncodeDecodeFuzz exercises the round-trip invariant over
// randomly generated rows, with each field's length bounded by its legal
// width so every generated row is valid.
func TestEncodeDecodeFuzz(t *testing.T) {
	f := fuzz.New().NilChance(0).Funcs(
		func(s *nameStr, c fuzz.Continue) {
			var raw string
			randField(NameSize)(&raw, c)
			*s = nameStr(raw)
		},
		func(s *descStr, c fuzz.Continue) {
			var raw string
			randField(DescriptionSize)(&raw, c)
			*s = descStr(raw)
		},
	)

	for i := 0; i < 200; i++ {
		var id uint64
		var name nameStr
		var description descStr
		f.Fuzz(&id)
		f.Fuzz(&name)
		f.Fuzz(&description)

		r := Row{ID: id, Name: string(name), Description: string(description)}

		buf := make([]byte, Size)
		require.NoError(t, Encode(r, buf))
		got, err := Decode(buf)
		require.NoError(t, err)
		require.Equal(t, r, got)
	}
}
