package dispatcher

import "fmt"

// ValidationError reports malformed input (no recipients, empty batch).
// Handlers surface it as HTTP 400 before any side effect.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// AttachmentError reports an attachment that could not be resolved: an
// undecodable inline CV or a configured-but-missing CV file. It fails the
// affected recipients, never the whole batch.
type AttachmentError struct {
	Reason string
	Err    error
}

func (e *AttachmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("attachment error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("attachment error: %s", e.Reason)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports that no usable SMTP credentials exist for a
// non-dry-run send.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Msg)
}

// DeliveryError reports a provider failure for one recipient. Sibling
// recipients and sibling batch items are unaffected.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
