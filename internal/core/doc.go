// Package core provides the matching engine for ICU surveillance-window audits.
//
// This package is the heart of the matcher, containing all domain logic
// independent of any UI, file format or transport layer. It can be used by
// web handlers, the CLI, or tests without modification.
//
// # Architecture
//
// A run is a single synchronous pass over in-memory tables:
//
//  1. Column values are parsed into [Timestamp] values by [ParseTimestamp].
//  2. Culture events are joined to ICU episodes by patient ID, either with
//     [RangeJoin] (every episode is a candidate) or [NearestPreceding].
//  3. Each candidate is classified against its [Window] by [Classify] and
//     the best candidate per event is kept.
//  4. The [Enricher] merges birth date, sex, name initials and registry
//     membership from auxiliary tables.
//  5. [Assemble] sorts, deduplicates and numbers the records.
//
// [Pipeline] wires these stages together from a [MatchConfig]. Every stage
// returns new slices; inputs are never modified.
//
// # Configuration Helpers
//
// [FindColumn] and [SuggestRoles] propose default columns from fuzzy header
// matching, and [DetectDelimiter] guesses the separator of combined fields
// such as "F/34". Both are advisory and run before the pipeline.
//
// # Census and Registry Tools
//
// [DeriveEpisodes] builds ICU episodes from monthly bed-census sheets, and
// [FindCaseCandidates] proposes patient IDs for registered infection cases.
//
// # Error Handling
//
// Unparseable dates are absent values, never errors. A missing column is
// fatal and reported as a [*ColumnError]. Low-confidence auxiliary data is
// reported through [Warning] values and never stops a run. Technical errors
// are mapped to user-friendly messages using [MapError].
package core
