// Package models defines the core domain models for Linkup.
//
// # Models
//
//   - Group: An activity group users are matched into
//   - GroupMember: A user's membership in a group
//
// User accounts live in the identity provider, not here: callers are
// identified by the user ID carried in their bearer token, so the
// backend only ever stores user IDs as opaque strings.
//
// # Design Principles
//
// 1. **Derived counts**: A group's size is always counted from GroupMember
// rows; it is never cached on the Group itself.
// 2. **Opaque criteria**: Group.Params is stored and returned verbatim.
// Matching never inspects it, so new criteria need no schema changes.
// 3. **Avoid circular references**: Relationships use ID strings, not
// pointers.
package models
