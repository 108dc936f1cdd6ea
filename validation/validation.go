package validation

import "github.com/go-playground/validator/v10"

// Validate is the shared validator instance. It caches struct metadata, so
// one instance is reused across the application.
var Validate = validator.New(validator.WithRequiredStructEnabled())
