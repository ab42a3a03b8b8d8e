package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// チェックアウト失敗の機械判別コード。
// クライアントはcodeで分岐し、messageは人間向け。
type CheckoutErrorCode string

const (
	CheckoutCodeUnauthenticated   CheckoutErrorCode = "UNAUTHENTICATED"
	CheckoutCodeInvalidRequest    CheckoutErrorCode = "INVALID_REQUEST"
	CheckoutCodeVariantNotFound   CheckoutErrorCode = "VARIANT_NOT_FOUND"
	CheckoutCodePriceMismatch     CheckoutErrorCode = "PRICE_MISMATCH"
	CheckoutCodeInsufficientStock CheckoutErrorCode = "INSUFFICIENT_STOCK"
	CheckoutCodeCommitFailed      CheckoutErrorCode = "COMMIT_FAILED"
	CheckoutCodeUnknown           CheckoutErrorCode = "UNKNOWN"
)

// CheckoutErrorはバリアント単位の失敗詳細を運ぶ。
// どのコードでも部分コミットは残らない（トランザクション境界が保証）。
type CheckoutError struct {
	Code    CheckoutErrorCode
	Message string

	//対象バリアント（該当コードのみ）
	VariantID int64

	//PRICE_MISMATCH: 正価と申告価格
	ExpectedPriceCents int64
	ActualPriceCents   int64

	//INSUFFICIENT_STOCK: 在庫と要求数
	AvailableStock int64
	RequestedQty   int64
}

func (e *CheckoutError) Error() string {
	if e.VariantID != 0 {
		return fmt.Sprintf("%s: variant %d: %s", e.Code, e.VariantID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatusはコードをステータスに写す。
// COMMIT_FAILED/UNKNOWNだけ500、認証切れは401、残りは400。
func (e *CheckoutError) HTTPStatus() int {
	switch e.Code {
	case CheckoutCodeUnauthenticated:
		return http.StatusUnauthorized
	case CheckoutCodeCommitFailed, CheckoutCodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// 再試行して安全なのはインフラ起因の失敗だけ
func (e *CheckoutError) Retryable() bool {
	return e.Code == CheckoutCodeCommitFailed
}

func AsCheckoutError(err error) (*CheckoutError, bool) {
	var ce *CheckoutError
	ok := errors.As(err, &ce)
	return ce, ok
}

func newInvalidRequest(msg string) *CheckoutError {
	return &CheckoutError{Code: CheckoutCodeInvalidRequest, Message: msg}
}

func newVariantNotFound(variantID int64) *CheckoutError {
	return &CheckoutError{
		Code:      CheckoutCodeVariantNotFound,
		Message:   "variant not found or not purchasable",
		VariantID: variantID,
	}
}

func newPriceMismatch(variantID, expected, actual int64) *CheckoutError {
	return &CheckoutError{
		Code:               CheckoutCodePriceMismatch,
		Message:            "price has changed, refresh cart",
		VariantID:          variantID,
		ExpectedPriceCents: expected,
		ActualPriceCents:   actual,
	}
}

func newInsufficientStock(variantID, available, requested int64) *CheckoutError {
	return &CheckoutError{
		Code:           CheckoutCodeInsufficientStock,
		Message:        "insufficient stock",
		VariantID:      variantID,
		AvailableStock: available,
		RequestedQty:   requested,
	}
}
