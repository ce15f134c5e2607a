package server

import (
	"crypto/rand"
	"regexp"
)

const roomCodeLength = 8

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func newRoomCode() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAAAA"
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

func isValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}
