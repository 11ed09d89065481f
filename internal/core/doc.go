// Package core provides the business logic for importing and exporting leads.
//
// The package holds all domain logic independent of any transport or
// storage. It is used by the web handlers, the leadctl CLI and tests alike.
//
// # Architecture
//
//   - Lead model: [Lead], its [Status] and [ColorCode] enumerations, and the
//     field length limits.
//   - Column resolution: [ResolveColumns] maps a header row with free-form
//     names ("Phone", "Mobile", "Full Name") onto canonical fields.
//   - Row coercion: [RowCoercer] turns a raw row into a lead, defaulting bad
//     values instead of rejecting them.
//   - Formats: [Format] adapters are registered with [RegisterFormat]. CSV is
//     always present; Excel is linked in by importing package core/xlsx.
//   - Import: [Importer] runs one file end to end and reports an [ImportResult].
//   - Export: [Export] renders leads in any registered format.
//   - Service: [Service] ties the above to a [LeadStore] and [StaffDirectory].
//
// # Import
//
// Importing a file is synchronous and processes rows in file order:
//
//  1. Select the format from the file suffix
//  2. Parse the whole file and resolve its header
//  3. Coerce each row and save it immediately
//
// A row that fails is skipped and reported as "Row N: reason", where N is
// the line number a spreadsheet would show. Rows saved before a failure stay
// saved.
//
// # Format Registry
//
// Adapters register themselves at init time:
//
//	func init() {
//	    core.RegisterFormat(Format{})
//	}
//
// A file whose suffix is known but whose adapter is missing fails with
// [ErrFormatUnavailable], so binaries built without Excel support still
// handle CSV.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - DB001-DB007: Database errors
//   - VAL001-VAL003: Form validation errors
//   - FILE001-FILE005: File errors
//   - IMP001-IMP003: Import pipeline errors
//   - UPL002-UPL005: Upload concurrency and timeouts
//   - LEAD001-LEAD002: Lookups
package core
