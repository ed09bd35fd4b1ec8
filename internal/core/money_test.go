package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"-1200", -120000, true},
		{"+3,50", 350, true},
		{"0", 0, true},
		{"-0.015", -2, true},
		{"--1", 0, false},
		{"1e3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyShare(t *testing.T) {
	cases := []struct {
		amount int64
		n      int
		want   int64
	}{
		{-120000, 12, -10000},
		{-100000, 3, -33333},
		{100000, 6, 16667},
		{-100000, 6, -16667},
		{5, 2, 3},
		{-5, 2, -3},
	}
	for _, tc := range cases {
		got, err := Cents(tc.amount).Share(tc.n)
		if err != nil || got.Cents != tc.want {
			t.Fatalf("Share(%d, %d) = %d (err=%v), want %d", tc.amount, tc.n, got.Cents, err, tc.want)
		}
	}
	if _, err := Cents(100).Share(0); !errors.Is(err, ErrInvalidInstallmentCount) {
		t.Fatalf("Share(0) should fail with ErrInvalidInstallmentCount, got %v", err)
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		-5:     "-0.05",
		123456: "1234.56",
		-10000: "-100.00",
	}
	for cents, want := range cases {
		if got := Cents(cents).String(); got != want {
			t.Errorf("Cents(%d).String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyUnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{`-1200`, -120000},
		{`12.5`, 1250},
		{`-83.33333333333333`, -8333},
		{`1e2`, 10000},
		{`"7,25"`, 725},
	}
	for _, tc := range cases {
		var m Money
		if err := json.Unmarshal([]byte(tc.in), &m); err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if m.Cents != tc.want {
			t.Errorf("%s: got %d, want %d", tc.in, m.Cents, tc.want)
		}
	}
	var m Money
	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}
