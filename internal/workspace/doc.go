// Package workspace provisions the hidden working directory that the
// bundler, the type-checker and the runtime components read from.
//
// Provisioning creates the cache directory tree under the project root,
// copies the package templates into it, records a stamp describing what was
// copied, and finally compiles the user's vulmix.config.ts into the cache
// directory with the type-checker.
//
// Design decisions:
//   - Templates are re-copied on every run, overwriting previous copies,
//     including ones the user edited in place.
//   - Nothing outside the cache directory is ever written. On failure the
//     partially written tree is left in place; the next run overwrites it.
//   - The stamp carries no timestamps so that provisioning twice yields a
//     byte-identical tree.
//   - The type-checker is reached through the CommandRunner interface, so
//     tests can assert the exact invocation without a Node toolchain.
package workspace
