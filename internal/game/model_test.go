package game

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorForCode(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{code: "SHOOT_LOCKOUT", want: ErrShootLockout},
		{code: " not_enough_weapons ", want: ErrNotEnoughWeapons},
		{code: "DEPLOYMENT_MODE", want: ErrFightDisabled},
		{code: "CHANGE_LOCATION", want: ErrChangeLocation},
		{code: "SOMETHING_NEW", want: nil},
	}
	for _, tc := range tests {
		if got := ErrorForCode(tc.code); got != tc.want {
			t.Fatalf("code=%q got=%v want=%v", tc.code, got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{err: nil, want: KindNone},
		{err: Transient("dial %s", "gateway"), want: KindTransient},
		{err: fmt.Errorf("fight: %w", ErrZoneInactive), want: KindDomain},
		{err: fmt.Errorf("%w: update gate", ErrGateTimeout), want: KindGateTimeout},
		{err: fmt.Errorf("%w: eat due at now", ErrSchedulingFault), want: KindScheduling},
		{err: errors.New("boom"), want: KindUnknown},
		{err: ErrUnauthorized, want: KindUnknown},
	}
	for _, tc := range tests {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("err=%v got=%s want=%s", tc.err, got, tc.want)
		}
	}
}

func TestIsDomain(t *testing.T) {
	if !IsDomain(fmt.Errorf("wam: %w", ErrTaskUnavailable)) {
		t.Fatalf("expected wrapped task unavailable to be a domain error")
	}
	if IsDomain(Transient("timeout")) {
		t.Fatalf("transient faults are not domain errors")
	}
}
