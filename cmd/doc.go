// The cmd directory contains the CryptoSanta binaries.
//
//   - server: the bulletin-board API server
//   - common: shared configuration helpers for the binaries
package cmd
