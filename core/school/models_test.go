package school_test

import (
	"strings"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/school"
	dummydb "github.com/mobashi/surv/storage/database/dummy"
)

func setup(t *testing.T) (*school.Service, *validator.Validate, ut.Translator) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return school.NewService(dummydb.NewSchoolRepository(db)), validate, translator
}

func TestNewSchoolValidate(t *testing.T) {
	svc, validate, translator := setup(t)

	tests := []struct {
		name    string
		ns      school.NewSchool
		wantErr bool
	}{
		{
			name: "name only",
			ns:   school.NewSchool{Name: "Scuola Alpha"},
		},
		{
			name: "all optionals set",
			ns: school.NewSchool{
				Name:    "Scuola Beta",
				Code:    null.StringFrom("BETA01"),
				Address: null.StringFrom("Via Roma 1, Milano"),
				Lat:     null.Float64From(45.4642),
				Lng:     null.Float64From(9.19),
			},
		},
		{
			name:    "missing name",
			ns:      school.NewSchool{Code: null.StringFrom("NONAME")},
			wantErr: true,
		},
		{
			name: "code too long",
			ns: school.NewSchool{
				Name: "Scuola Gamma",
				Code: null.StringFrom(strings.Repeat("X", 21)),
			},
			wantErr: true,
		},
		{
			name: "address too long",
			ns: school.NewSchool{
				Name:    "Scuola Delta",
				Address: null.StringFrom(strings.Repeat("a", 301)),
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ns.Validate(validate, translator, svc)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateSchoolValidate(t *testing.T) {
	svc, validate, _ := setup(t)
	orig := school.School{ID: 1, Name: "Scuola Alpha"}

	us := school.UpdateSchool{
		Code:    null.StringFrom("ALPHA"),
		Address: null.StringFrom("Via Dante 2"),
	}
	require.NoError(t, us.Validate(validate, orig, svc))
	assert.Equal(t, orig.Name, us.Name) // name falls back to the original

	us = school.UpdateSchool{Code: null.StringFrom(strings.Repeat("X", 21))}
	assert.Error(t, us.Validate(validate, orig, svc))
}
