// Package types defines the data model shared by the components of the supply
// chain: roles, stages, the records of a batch, user profiles, events and the
// errors of the taxonomy.
package types
