package parser

import (
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"
)

// NewPageCache 创建进程内的页面缓存，并发请求同一URL时只抓取一次
func NewPageCache(ttl time.Duration) (*sfcache.TieredCache[string, []byte], error) {
	tc, err := sfcache.NewTiered[string, []byte](null.New[string, []byte](), sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("创建页面缓存失败: %w", err)
	}
	return tc, nil
}
