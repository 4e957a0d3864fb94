// Package errors is the structured error type shared by the resource client,
// the table screens and the development backend.
//
// Failures talking to the REST backend fall into four codes:
//
//   - ErrCodeNotFound         the backend answered 404
//   - ErrCodeValidationFailed the backend answered 400/422, or a draft failed local validation
//   - ErrCodeConflict         the backend answered 409, or the same submit is already in flight
//   - ErrCodeTransport        network failure or any other non-success status
//
// Screens and the console branch on codes with IsCode; the backend turns them
// back into statuses with MapErrorCodeToHTTPStatus.
//
//	if errors.IsCode(err, errors.ErrCodeConflict) {
//		// duplicate submission
//	}
package errors
