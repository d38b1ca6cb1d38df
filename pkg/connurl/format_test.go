package connurl

import (
	"errors"
	"strings"
	"testing"

	"github.com/vertti/validate-infra/pkg/check"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr string
	}{
		{"empty", "", "", "Empty URL"},
		{"postgres", "postgresql://u:p@host:25060/defaultdb", "Valid postgresql URL format", ""},
		{"mysql", "mysql://u:p@host:3306/db", "Valid mysql URL format", ""},
		{"mongodb srv", "mongodb+srv://u:p@cluster.example.com/admin", "Valid mongodb URL format", ""},
		{"redis", "rediss://default:p@host:25061", "Valid redis URL format", ""},
		{"http", "https://inference.do-ai.run", "Valid http URL format", ""},
		{"unknown scheme", "amqp://guest@host", "URL format (unknown scheme)", ""},
		{"not a url", "localhost", "", "Invalid URL format"},
		{"unresolved", "postgresql://u:p@${db.host}:5432/db", "", "Unresolved variables: ${db.host}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFormat(tt.raw)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateFormatUnresolvedIsDistinct(t *testing.T) {
	_, err := ValidateFormat("${a}${b}${c}${d}")
	var unresolved *ErrUnresolved
	if !errors.As(err, &unresolved) {
		t.Fatalf("err = %T, want *ErrUnresolved", err)
	}
	if len(unresolved.Vars) != 4 {
		t.Errorf("Vars = %v", unresolved.Vars)
	}
	if check.Classify(err) != check.KindUnresolvedTemplate {
		t.Errorf("Classify(err) = %q, want unresolved_template", check.Classify(err))
	}
	if err.Error() != "Unresolved variables: ${a}, ${b}, ${c}" {
		t.Errorf("Error() = %q, want first three only", err.Error())
	}
}
