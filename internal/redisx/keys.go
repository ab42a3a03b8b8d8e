package redisx

import "time"

const (
	// 商品詳細キャッシュ: catalog:product:{product_id} -> ProductOutput JSON
	KeyProductDetail = "catalog:product:%d"
)

var (
	// 書き込み時にDELもするが、TTLでも自然に切れるようにしておく
	TTLProductDetail = 5 * time.Minute
)
