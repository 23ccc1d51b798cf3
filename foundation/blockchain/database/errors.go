package database

import "errors"

// Set of validation outcomes. Blocks and transactions failing any of these
// checks are rejected and no state is mutated. Detail is wrapped on top with
// fmt.Errorf so callers should use errors.Is.
var (
	ErrStructural      = errors.New("structural error")
	ErrLinkage         = errors.New("linkage error")
	ErrProofOfWork     = errors.New("proof of work error")
	ErrTimestamp       = errors.New("timestamp error")
	ErrDuplicateInput  = errors.New("duplicate input")
	ErrUnresolvedInput = errors.New("unresolved input")
	ErrSignature       = errors.New("signature error")
	ErrAmountMismatch  = errors.New("amount mismatch")
	ErrAuthorization   = errors.New("authorization error")
	ErrGenesisMismatch = errors.New("genesis mismatch")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrStructural, "structural"},
	{ErrLinkage, "linkage"},
	{ErrProofOfWork, "proof_of_work"},
	{ErrTimestamp, "timestamp"},
	{ErrDuplicateInput, "duplicate_input"},
	{ErrUnresolvedInput, "unresolved_input"},
	{ErrSignature, "signature"},
	{ErrAmountMismatch, "amount_mismatch"},
	{ErrAuthorization, "authorization"},
	{ErrGenesisMismatch, "genesis_mismatch"},
}

// IsValidationError reports whether the error is one of the validation
// outcomes above.
func IsValidationError(err error) bool {
	return ErrorKind(err) != "other"
}

// ErrorKind returns a short label for the validation outcome carried by the
// error, or "other" when there is none. Used for metric labels.
func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}

	return "other"
}
