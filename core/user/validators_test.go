package user

import "testing"

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		pwd     string
		attrs   []string
		wantErr string
	}{
		{name: "too short", pwd: "aB1!", wantErr: pwdMinLenText},
		{name: "whitespace", pwd: "aB1! aB1!", wantErr: pwdNoSpaceText},
		{name: "all numeric", pwd: "12345678", wantErr: pwdNotAllNumText},
		{name: "no uppercase", pwd: "secret1!pass", wantErr: pwdComplexityText},
		{name: "no digit", pwd: "Secret!pass", wantErr: pwdComplexityText},
		{name: "no special", pwd: "Secret1pass", wantErr: pwdComplexityText},
		{name: "similar to username", pwd: "Jdoe1234!", attrs: []string{"jdoe1234"}, wantErr: pwdAttrSimText},
		{name: "empty attrs skipped", pwd: "v3rY$ecret", attrs: []string{"", ""}},
		{name: "valid", pwd: "v3rY$ecret", attrs: []string{"jdoe", "jdoe@test.it"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.pwd, tt.attrs...)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidatePassword() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidatePassword() expected %q, got nil", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("ValidatePassword() error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}
