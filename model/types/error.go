package types

import "fmt"

func NewConfigurationError(detail string) error {
	return fmt.Errorf("invalid configuration: %v", detail)
}

func NewStageError(stage string, err error) error {
	return fmt.Errorf("%v failed: %w", stage, err)
}
