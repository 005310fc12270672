package token_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-mona/token"
)

func TestParseAmount(t *testing.T) {
	tenth := new(uint256.Int).Div(token.Unit(), uint256.NewInt(10))
	cases := []struct {
		in   string
		want *uint256.Int
	}{
		{"0", uint256.NewInt(0)},
		{"1", token.WholeTokens(1)},
		{"500", token.WholeTokens(500)},
		{"007", token.WholeTokens(7)},
		{"1.5", new(uint256.Int).Mul(tenth, uint256.NewInt(15))},
		{".5", new(uint256.Int).Mul(tenth, uint256.NewInt(5))},
		{"2.50", new(uint256.Int).Mul(tenth, uint256.NewInt(25))},
		{"0.000000000000000001", uint256.NewInt(1)},
		{"100000", token.InitialSupply()},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := token.ParseAmount(tc.in)
			if err != nil {
				t.Fatalf("parse %q failed: %v", tc.in, err)
			}
			if !got.Eq(tc.want) {
				t.Errorf("parse %q: expected %s, got %s", tc.in, tc.want.Dec(), got.Dec())
			}
		})
	}
}

func TestParseAmountErrors(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"", token.ErrBadAmount},
		{"abc", token.ErrBadAmount},
		{"1,5", token.ErrBadAmount},
		{"1.2.3", token.ErrBadAmount},
		{"-1", token.ErrBadAmount},
		{"1.1234567890123456789", token.ErrBadAmount}, // 19 fractional digits
		{strings.Repeat("9", 60), token.ErrOverflow},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if _, err := token.ParseAmount(tc.in); !errors.Is(err, tc.want) {
				t.Errorf("parse %q: expected %v, got: %v", tc.in, tc.want, err)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   *uint256.Int
		want string
	}{
		{uint256.NewInt(0), "0"},
		{token.WholeTokens(1000), "1000"},
		{token.MustParseAmount("1.5"), "1.5"},
		{token.MustParseAmount("2.50"), "2.5"},
		{uint256.NewInt(1), "0.000000000000000001"},
		{token.InitialSupply(), "100000"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			if got := token.FormatAmount(tc.in); got != tc.want {
				t.Errorf("format %s: expected %q, got %q", tc.in.Dec(), tc.want, got)
			}
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1", "0.1", "123456.789", "0.000000000000000001"} {
		v := token.MustParseAmount(s)
		back, err := token.ParseAmount(token.FormatAmount(v))
		if err != nil {
			t.Fatalf("reparse %q failed: %v", s, err)
		}
		if !back.Eq(v) {
			t.Errorf("round trip %q: %s != %s", s, back.Dec(), v.Dec())
		}
	}
}

func TestInitialSupply(t *testing.T) {
	if !token.InitialSupply().Eq(token.WholeTokens(token.InitialWholeSupply)) {
		t.Error("initial supply does not match the declared whole-token count")
	}
	want := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(token.Decimals))
	if !token.Unit().Eq(want) {
		t.Errorf("expected unit 10^%d, got %s", token.Decimals, token.Unit().Dec())
	}
}
