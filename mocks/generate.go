package mocks

//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/webclinic017/quant-research/internal/strategy Strategy
//go:generate mockgen -destination=./mock_credit.go -package=mocks github.com/webclinic017/quant-research/internal/broker CreditProvider
