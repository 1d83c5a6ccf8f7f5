// Package pool provides ants based worker pools for bounded concurrent work.
package pool

import "errors"

// 池相关错误定义
var (
	// ErrPoolClosed 池已关闭
	ErrPoolClosed = errors.New("pool is closed")

	// ErrPoolOverload 池已满（仅非阻塞模式）
	ErrPoolOverload = errors.New("pool is overloaded")

	// ErrInvalidPoolConfig 无效的池配置
	ErrInvalidPoolConfig = errors.New("invalid pool config")
)
