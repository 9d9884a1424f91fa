// Package sec provides the credential and session primitives for the
// intake application.
//
// # Credential storage
//
// Three credential formats coexist in user tables in the field, from
// oldest to newest:
//
//   - cleartext in the legacy password column
//   - a combined "salt:hash" string in the legacy password column
//   - separate password_hash and password_salt columns
//
// [Resolver.Authenticate] verifies against whichever format a row holds
// and opportunistically upgrades weaker formats to the strongest one the
// schema supports on successful login. Which columns exist is resolved
// once at startup (see the storage package) and injected here.
//
// # Components
//
//   - [DeriveRecord], [VerifyPassword]: PBKDF2-SHA512 password hashing
//   - [Record], [ParseCombined]: the salt/hash pair and its combined encoding
//   - [Resolver]: login, registration, and lazy credential migration
//   - [Sessions]: in-memory cookie-token sessions
package sec
