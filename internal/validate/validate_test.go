package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type contactInput struct {
	PlaceID string `json:"placeId" validate:"required"`
	Name    string `json:"name" validate:"required,notblank"`
	Email   string `json:"email" validate:"required,email"`
}

func TestStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     contactInput
		fields []string
	}{
		{name: "valid", in: contactInput{PlaceID: "p", Name: "Tibits", Email: "info@tibits.ch"}},
		{name: "blank name", in: contactInput{PlaceID: "p", Name: "   ", Email: "info@tibits.ch"}, fields: []string{"name"}},
		{name: "bad email", in: contactInput{PlaceID: "p", Name: "A", Email: "nope"}, fields: []string{"email"}},
		{name: "all missing", in: contactInput{}, fields: []string{"placeId", "name", "email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Struct(tt.in)
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}
			var fe FieldErrors
			require.ErrorAs(t, err, &fe)
			require.Len(t, fe, len(tt.fields))
			for _, f := range tt.fields {
				require.Contains(t, fe, f)
			}
		})
	}
}

func TestBlankMessage(t *testing.T) {
	t.Parallel()

	err := Struct(contactInput{PlaceID: "p", Name: " ", Email: "a@b.ch"})
	require.EqualError(t, err, "name must not be blank")
}

func TestGetIsSingleton(t *testing.T) {
	t.Parallel()

	require.Same(t, Get(), Get())
}
