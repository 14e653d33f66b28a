package account

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	gen := NewTokenGenerator("secret", 3*24*time.Hour)

	now := time.Now()
	acc := Account{
		ID:        "3f1c7e2a-51b4-4a8e-9d62-0c9a1f6e2b11",
		Name:      "T",
		Email:     "t@test.test",
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = acc.SetPassword("pwd123")

	validToken, _ := gen.MakeToken(acc)

	// generate an expired token
	dayLate := 4 * 24 * time.Hour
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, _ := gen.MakeToken(acc)
	nowFunc = time.Now // reset

	// a new login invalidates previous tokens
	loggedIn := acc
	loggedIn.LastLogin = now.Add(time.Minute)

	tests := []struct {
		name    string
		acc     Account
		token   string
		wantErr error
	}{
		{name: "no token", acc: acc, wantErr: ErrInvalidToken},
		{name: "invalid parts len", acc: acc, token: "lmaooolol", wantErr: ErrInvalidToken},
		{name: "invalid base32", acc: acc, token: "hahaha-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid timestamp", acc: acc, token: "NRXWY-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid token", acc: acc, token: "HE4TS-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "expired token", acc: acc, token: expiredToken, wantErr: ErrTokenExpired},
		{name: "used after login", acc: loggedIn, token: validToken, wantErr: ErrInvalidToken},
		{name: "valid token", acc: acc, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := gen.VerifyToken(tt.acc, tt.token); err != tt.wantErr {
				t.Errorf("VerifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	acc := Account{ID: "3f1c7e2a-51b4-4a8e-9d62-0c9a1f6e2b11"}
	got, err := DecodeUID(EncodeUID(acc))
	if err != nil || got != acc.ID {
		t.Errorf("DecodeUID() = %v, %v, want %v", got, err, acc.ID)
	}
	if _, err := DecodeUID("!!"); err == nil {
		t.Error("DecodeUID() expected an error")
	}
}
