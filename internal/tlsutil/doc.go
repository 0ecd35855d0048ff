// Package tlsutil 集中提供 TLS 配置：TLS 1.2+，仅 AEAD 密码套件。
// 调试服务、Redis 连接与 stream --ws 的 WebSocket 客户端共用这些设置。
package tlsutil
