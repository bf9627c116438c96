// Package directives holds the declarative correction tables that drive the
// identity, collision, and collection passes.
//
// There is one directive type per entity category: guest merges, synthetic
// pairs, display name fixes, wrong-video fixes, guest type tags, spine-keyed
// catalog corrections, collection definitions, and stale URL fixes. Passes
// never hard-code these facts; they read them from a Table.
//
// A built-in table is embedded in the binary. An operator may point
// [directives] path at a JSON or YAML file whose entries are appended to the
// built-in ones; the file is re-read whenever its modification time changes.
// Tables are validated with struct tags before any pass sees them.
package directives
