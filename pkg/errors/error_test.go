package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewAndNewf() {
	err := New(ErrCodeNoPosition, "no position")
	suite.Equal(ErrCodeNoPosition, err.Code)
	suite.Contains(err.Error(), "no position")

	err = Newf(ErrCodeNoPosition, "no position for %s", "fund")
	suite.Contains(err.Error(), "no position for fund")
}

func (suite *ErrorTestSuite) TestWrapKeepsCause() {
	cause := stderrors.New("disk full")
	err := Wrap(ErrCodeQueryFailed, "failed to persist", cause)

	suite.Equal(ErrCodeQueryFailed, err.Code)
	suite.ErrorIs(err, cause)
	suite.Contains(err.Error(), "disk full")
}

func (suite *ErrorTestSuite) TestGetCode() {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{"direct", New(ErrCodeInsufficientCash, "broke"), ErrCodeInsufficientCash},
		{"wrapped in fmt", fmt.Errorf("outer: %w", New(ErrCodeNoData, "x")), ErrCodeNoData},
		{"plain error", stderrors.New("plain"), ErrCodeUnknown},
		{"nil-ish wrap", Wrapf(ErrCodeStrategyFailed, stderrors.New("inner"), "day %d", 3), ErrCodeStrategyFailed},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, GetCode(tc.err))
		})
	}
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeEmptyCalendar, "nothing to simulate")

	suite.True(HasCode(err, ErrCodeEmptyCalendar))
	suite.False(HasCode(err, ErrCodeNoData))
	suite.False(HasCode(nil, ErrCodeEmptyCalendar))
}
