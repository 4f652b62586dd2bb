// Package identity mints the identifier hierarchy a committed team needs:
// team_id, team_code, participant_id, and the access_key used for
// unauthenticated re-download.
package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	teamCodePrefix   = "TEAM-"
	teamCodeSuffixN  = 6
	accessKeyLength  = 10
	teamCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	accessKeyAlpha   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// TeamID formats a team sequence number as PREFIX-NNN, zero-padded to width.
func TeamID(prefix string, width int, sequence int) string {
	return fmt.Sprintf("%s-%0*d", prefix, width, sequence)
}

// TeamCode generates a random TEAM-XXXXXX code from a cryptographically
// seeded source. Collision handling (retry budget) is the caller's
// responsibility, since only the caller knows whether a candidate
// collided with a persisted row.
func TeamCode() (string, error) {
	suffix, err := randomString(teamCodeAlphabet, teamCodeSuffixN)
	if err != nil {
		return "", fmt.Errorf("minting team code: %w", err)
	}
	return teamCodePrefix + suffix, nil
}

// ParticipantID derives a member's identifier deterministically from the
// team code and the member's 0-based index.
func ParticipantID(teamCode string, index int) string {
	return fmt.Sprintf("%s-%03d", teamCode, index)
}

// AccessKey generates a 10-character mixed-case alphanumeric secret paired
// with a team_id to authorize re-download without an account.
func AccessKey() (string, error) {
	key, err := randomString(accessKeyAlpha, accessKeyLength)
	if err != nil {
		return "", fmt.Errorf("minting access key: %w", err)
	}
	return key, nil
}

// randomString draws n characters uniformly from alphabet using
// crypto/rand, rejecting modulo bias via rand.Int.
func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
