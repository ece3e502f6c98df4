package redisstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/MrEthical07/authcore/credential"
)

const userRecordVersionV1 = 1

var errInvalidRecord = errors.New("invalid user record")

func encodeUser(u *credential.User) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(userRecordVersionV1)
	buf.WriteByte(byte(u.MFA.State))

	for _, s := range []string{u.ID, u.Name, u.Email, u.PasswordHash, u.MFA.Secret, u.MFA.PendingSecret, u.ResetTokenHash} {
		if err := writeString(&buf, s); err != nil {
			return nil, err
		}
	}

	for _, v := range []int64{
		u.MFA.LastUsedStep,
		int64(u.Version),
		unixNano(u.ResetExpiresAt),
		unixNano(u.CreatedAt),
		unixNano(u.UpdatedAt),
	} {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func decodeUser(data []byte) (*credential.User, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != userRecordVersionV1 {
		return nil, errInvalidRecord
	}
	state, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	u := &credential.User{}
	u.MFA.State = credential.MFAState(state)

	for _, dst := range []*string{&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.MFA.Secret, &u.MFA.PendingSecret, &u.ResetTokenHash} {
		if *dst, err = readString(reader); err != nil {
			return nil, err
		}
	}

	var nums [5]int64
	for i := range nums {
		if err := binary.Read(reader, binary.BigEndian, &nums[i]); err != nil {
			return nil, err
		}
	}
	u.MFA.LastUsedStep = nums[0]
	u.Version = uint64(nums[1])
	u.ResetExpiresAt = fromUnixNano(nums[2])
	u.CreatedAt = fromUnixNano(nums[3])
	u.UpdatedAt = fromUnixNano(nums[4])

	if reader.Len() != 0 {
		return nil, errInvalidRecord
	}
	return u, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("user record field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
