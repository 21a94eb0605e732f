package main

import (
	"errors"
	"testing"
)

func TestParseArgs(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		want    config
		wantErr bool
	}{
		{name: "Valid", args: []string{"8080", "/srv/www", "/var/log/access.log"}, want: config{port: 8080, root: "/srv/www", logFile: "/var/log/access.log"}},
		{name: "Too few", args: []string{"8080", "/srv/www"}, wantErr: true},
		{name: "Too many", args: []string{"8080", "/srv/www", "log", "extra"}, wantErr: true},
		{name: "None", args: nil, wantErr: true},
		{name: "Port not a number", args: []string{"http", "/srv/www", "log"}, wantErr: true},
		{name: "Port with suffix", args: []string{"80a", "/srv/www", "log"}, wantErr: true},
		{name: "Empty port", args: []string{"", "/srv/www", "log"}, wantErr: true},
		{name: "Port out of range", args: []string{"70000", "/srv/www", "log"}, wantErr: true},
		{name: "Negative port", args: []string{"-1", "/srv/www", "log"}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgs(tc.args)
			if tc.wantErr {
				if !errors.Is(err, errUsage) {
					t.Fatalf("expected errUsage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
