package service

import (
	"testing"

	"github.com/paysync/paysync/internal/testutil"
	"github.com/paysync/paysync/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type TransactionRecorderTestSuite struct {
	testutil.BaseServiceTestSuite
	recorder TransactionRecorder
}

func TestTransactionRecorder(t *testing.T) {
	suite.Run(t, new(TransactionRecorderTestSuite))
}

func (s *TransactionRecorderTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.recorder = NewTransactionRecorder(s.GetStores().TransactionRepo, s.GetLogger())
}

func (s *TransactionRecorderTestSuite) TestRecordWithSettlementDetail() {
	fee := decimal.NewFromFloat(1.75)
	net := decimal.NewFromFloat(48.25)

	txn, err := s.recorder.Record(s.GetContext(), RecordTransactionParams{
		UserID:              "user_1",
		ExternalReferenceID: "in_100",
		Type:                types.TransactionTypeSubscription,
		Amount:              decimal.NewFromInt(50),
		Currency:            "usd",
		Status:              types.TransactionStatusCompleted,
		Description:         "Subscription payment",
		Fee:                 &fee,
		Net:                 &net,
	})
	s.NoError(err)
	s.Equal("USD", txn.Currency)
	s.True(txn.StripeFee.Equal(fee))
	s.True(txn.NetAmount.Equal(net))
}

func (s *TransactionRecorderTestSuite) TestRecordFallbackWhenSettlementMissing() {
	amount := decimal.NewFromFloat(19.99)

	txn, err := s.recorder.Record(s.GetContext(), RecordTransactionParams{
		UserID:              "user_1",
		ExternalReferenceID: "pi_100",
		Type:                types.TransactionTypePayment,
		Amount:              amount,
		Currency:            "eur",
		Status:              types.TransactionStatusCompleted,
		Description:         "Payment",
	})
	s.NoError(err)
	s.True(txn.StripeFee.IsZero())
	s.True(txn.NetAmount.Equal(amount))
}

func (s *TransactionRecorderTestSuite) TestRecordFallbackWhenOnlyFeePresent() {
	// A partial settlement detail is treated as absent.
	fee := decimal.NewFromFloat(1.75)
	amount := decimal.NewFromInt(50)

	txn, err := s.recorder.Record(s.GetContext(), RecordTransactionParams{
		UserID:              "user_1",
		ExternalReferenceID: "pi_101",
		Type:                types.TransactionTypePayment,
		Amount:              amount,
		Currency:            "USD",
		Status:              types.TransactionStatusCompleted,
		Fee:                 &fee,
	})
	s.NoError(err)
	s.True(txn.StripeFee.IsZero())
	s.True(txn.NetAmount.Equal(amount))
}

func (s *TransactionRecorderTestSuite) TestRecordRejectsInvalidParams() {
	_, err := s.recorder.Record(s.GetContext(), RecordTransactionParams{
		UserID:              "",
		ExternalReferenceID: "pi_102",
		Type:                types.TransactionTypePayment,
		Amount:              decimal.NewFromInt(10),
		Currency:            "usd",
		Status:              types.TransactionStatusCompleted,
	})
	s.Error(err)
}

func (s *TransactionRecorderTestSuite) TestGetByReferenceReturnsNilWhenMissing() {
	txn, err := s.recorder.GetByReference(s.GetContext(), "pi_missing")
	s.NoError(err)
	s.Nil(txn)
}

func (s *TransactionRecorderTestSuite) TestUpdateStatusByReference() {
	_, err := s.recorder.Record(s.GetContext(), RecordTransactionParams{
		UserID:              "user_1",
		ExternalReferenceID: "in_200",
		Type:                types.TransactionTypeSubscription,
		Amount:              decimal.NewFromInt(50),
		Currency:            "usd",
		Status:              types.TransactionStatusFailed,
		FailureReason:       lo.ToPtr("invoice payment failed"),
	})
	s.NoError(err)

	err = s.recorder.UpdateStatusByReference(s.GetContext(), "in_200", types.TransactionStatusCompleted, nil)
	s.NoError(err)

	txn, err := s.recorder.GetByReference(s.GetContext(), "in_200")
	s.NoError(err)
	s.Equal(types.TransactionStatusCompleted, txn.TransactionStatus)
	// The prior failure reason stays on the record for audit.
	s.NotNil(txn.FailureReason)
}

func (s *TransactionRecorderTestSuite) TestUpdateStatusByReferenceMissingIsNoOp() {
	err := s.recorder.UpdateStatusByReference(s.GetContext(), "pi_unknown", types.TransactionStatusCancelled, lo.ToPtr("payment was canceled"))
	s.NoError(err)
}

func (s *TransactionRecorderTestSuite) TestUpdateStatusByReferenceRejectsUnknownStatus() {
	err := s.recorder.UpdateStatusByReference(s.GetContext(), "pi_100", types.TransactionStatus("settled"), nil)
	s.Error(err)
}
