package service

import (
	"errors"
	"fmt"
)

// ErrConnection — мост или терминал недоступен. Снапшот с такой ошибкой
// переводит оркестратор в Disconnected, состояние групп не трогается.
var ErrConnection = errors.New("terminal connection error")

type FailureKind string

const (
	KindRequote      FailureKind = "REQUOTE"
	KindPriceInvalid FailureKind = "PRICE_INVALID"
	KindRejected     FailureKind = "REJECTED"
	KindTransient    FailureKind = "TRANSIENT"
)

// TradeError — отказ торговой операции с сырым кодом терминала.
type TradeError struct {
	Kind    FailureKind
	RetCode int
	Msg     string
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("trade error %s retcode=%d: %s", e.Kind, e.RetCode, e.Msg)
}

// KindOf вытаскивает вид отказа; транспортные и connection-ошибки считаем Transient.
func KindOf(err error) FailureKind {
	var te *TradeError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindTransient
}

// retcode-ы терминала. 10009 — done, 10008 — placed.
const (
	retDone         = 10009
	retPlaced       = 10008
	retRequote      = 10004
	retReject       = 10006
	retInvalidPrice = 10015
	retInvalidStops = 10016
	retMarketClosed = 10018
	retPriceChanged = 10020
	retPriceOff     = 10021
	retInvalidFill  = 10030
	retNoConnection = 10031
	retLimitVolume  = 10034
)

// tradeErrFromRetCode маппит код терминала в вид отказа.
// nil — операция принята.
func tradeErrFromRetCode(code int, comment string) error {
	switch code {
	case retDone, retPlaced:
		return nil
	case retRequote, retPriceChanged:
		return &TradeError{Kind: KindRequote, RetCode: code, Msg: comment}
	case retInvalidPrice, retInvalidStops:
		return &TradeError{Kind: KindPriceInvalid, RetCode: code, Msg: comment}
	case retMarketClosed, retPriceOff, retNoConnection:
		return &TradeError{Kind: KindTransient, RetCode: code, Msg: comment}
	case retReject, retInvalidFill, retLimitVolume:
		return &TradeError{Kind: KindRejected, RetCode: code, Msg: comment}
	default:
		return &TradeError{Kind: KindRejected, RetCode: code, Msg: comment}
	}
}
