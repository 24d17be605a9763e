package domain

import (
	"fmt"
	"strings"
)

type ChecksumAlgorithm string

const (
	AlgorithmMD5    ChecksumAlgorithm = "md5"
	AlgorithmSHA1   ChecksumAlgorithm = "sha1"
	AlgorithmSHA256 ChecksumAlgorithm = "sha256"
)

func ParseChecksumAlgorithm(s string) (ChecksumAlgorithm, error) {
	switch a := ChecksumAlgorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case AlgorithmMD5, AlgorithmSHA1, AlgorithmSHA256:
		return a, nil
	case "sha-1":
		return AlgorithmSHA1, nil
	case "sha-256":
		return AlgorithmSHA256, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, s)
	}
}

// SplitChecksum reads an expected checksum. A bare hex digest is MD5; an
// "<algorithm>:<hex>" prefix selects another algorithm.
func SplitChecksum(expected string) (ChecksumAlgorithm, string, error) {
	expected = strings.TrimSpace(expected)
	algo, digest, ok := strings.Cut(expected, ":")
	if !ok {
		return AlgorithmMD5, strings.ToLower(expected), nil
	}
	parsed, err := ParseChecksumAlgorithm(algo)
	if err != nil {
		return "", "", err
	}
	return parsed, strings.ToLower(strings.TrimSpace(digest)), nil
}
