package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

type sample struct {
	Name     string         `json:"name" validate:"required"`
	Priority model.Priority `json:"priority" validate:"required,priority"`
	Status   string         `json:"status" validate:"omitempty,assetstatus"`
	Role     string         `json:"role" validate:"omitempty,role"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(sample{Name: "a", Priority: model.PriorityCritical, Status: "Out for Service"}))

	err := ValidateStruct(sample{Priority: "Low", Status: "Broken", Role: "boss"})
	require.Error(t, err)
	ae := apperror.Get(err)
	require.NotNil(t, ae)
	assert.Equal(t, 400, ae.Code)
	assert.ElementsMatch(t, []string{
		"name is required",
		"priority must be one of [Normal High Critical]",
		"status must be one of [Active, Out for Service]",
		"role must be one of [admin mechanic operator]",
	}, ae.Details)
}
