package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidArgument indicates that a request violates a precondition.
var ErrInvalidArgument = errors.New("invalid argument")

type ConflictReason string

const (
	ReferencedByPipeline ConflictReason = "referenced_by_pipeline"
	ReferencedViaAlias   ConflictReason = "referenced_via_alias"
	CurrentlyDeployed    ConflictReason = "currently_deployed"
)

// ConflictError is returned when a model cannot be deleted without force. It is returned before any
// side effect has been issued.
type ConflictError struct {
	ModelId  string
	Reason   ConflictReason
	Pipeline string
	Alias    string
}

func (e *ConflictError) Error() string {
	switch e.Reason {
	case ReferencedByPipeline:
		return fmt.Sprintf("Cannot delete model [%s] as it is still referenced by ingest processors; use force to delete the model", e.ModelId)
	case ReferencedViaAlias:
		return fmt.Sprintf("Cannot delete model [%s] as it has a model_alias [%s] that is still referenced by ingest processors; use force to delete the model", e.ModelId, e.Alias)
	case CurrentlyDeployed:
		return fmt.Sprintf("Cannot delete model [%s] as it is currently deployed; use force to delete the model", e.ModelId)
	}
	return fmt.Sprintf("Cannot delete model [%s]: %s", e.ModelId, e.Reason)
}

func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// AsConflict returns the conflict carried by err, if any.
func AsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
