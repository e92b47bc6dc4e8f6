// Package filter turns filter inputs into query terms.
//
// A Controller holds a draft value per Field. Apply validates the whole draft
// and sends one patch; fields marked LiveApply send on every change. Clear
// unsets every key a field can produce and leaves search, sort and paging
// alone. Inputs that do not compile (a bad date, an unknown option) return an
// error wrapping ErrInvalidFilter and never reach the synchroniser.
//
// Compilation by operator:
//
//   - Equals: f_status=ACTIVE
//   - Contains: f_name_like=lamp
//   - Range: f_created_from=2024-01-01, f_created_to=2024-03-31 (input "from..to")
//   - In: f_country=NO,SE
//   - Checkbox: f_verified=true
package filter
