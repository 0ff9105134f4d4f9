package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"required,len=3,alpha"`
	Country  string  `json:"country" validate:"omitempty,len=2"`
}

func TestValidate_Success(t *testing.T) {
	s := testStruct{Amount: 49.99, Currency: "USD", Country: "US"}
	err := Validate(s)
	assert.NoError(t, err)
}

func TestValidate_OmitemptySkipsEmpty(t *testing.T) {
	s := testStruct{Amount: 49.99, Currency: "USD"}
	err := Validate(s)
	assert.NoError(t, err)
}

func TestValidate_MissingRequired(t *testing.T) {
	s := testStruct{Amount: 49.99}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "currency")
	assert.Equal(t, "is required", fields["currency"])
}

func TestValidate_ZeroAmount(t *testing.T) {
	s := testStruct{Amount: 0, Currency: "USD"}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "amount")
}

func TestValidate_BadCurrencyLength(t *testing.T) {
	s := testStruct{Amount: 10, Currency: "US"}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["currency"], "exactly 3")
}

func TestValidate_NonAlphaCurrency(t *testing.T) {
	s := testStruct{Amount: 10, Currency: "U5D"}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must contain only letters", valErr.Fields()["currency"])
}

func TestValidate_MultipleErrors(t *testing.T) {
	s := testStruct{}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "amount")
	assert.Contains(t, fields, "currency")
}

// Fields reports json tag names so API clients see the wire field, not the
// Go field. Structs without json tags keep the Go field name.
func TestValidate_FieldNamesFollowJSONTags(t *testing.T) {
	err := Validate(testStruct{Amount: 10, Currency: "USD", Country: "USA"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "country")
	assert.NotContains(t, fields, "Country")
}

func TestValidate_NoJSONTagFallsBackToFieldName(t *testing.T) {
	type bare struct {
		Currency string `validate:"required"`
	}
	err := Validate(bare{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "Currency")
}

func TestValidationError_ErrorString(t *testing.T) {
	s := testStruct{}
	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'currency'")
	assert.Contains(t, err.Error(), "is required")
}

type oneofStruct struct {
	Provider string `json:"provider" validate:"oneof=stripe razorpay"`
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(oneofStruct{Provider: "paypal"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["provider"], "one of")

	assert.NoError(t, Validate(oneofStruct{Provider: "stripe"}))
	assert.NoError(t, Validate(oneofStruct{Provider: "razorpay"}))
}
