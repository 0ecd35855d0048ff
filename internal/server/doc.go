// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
Package server 管理调试服务的 HTTP/HTTPS 生命周期：非阻塞启动、
优雅关闭与信号监听。

  - Manager：封装 net/http.Server 与监听器，提供 Start、Shutdown、
    WaitForShutdown、Errors、Addr 与 IsRunning。
  - Config：监听地址、超时、请求头上限与 TLS 证书，
    可由 config.ServerConfig 转换得到。

配置了证书与私钥时 Start 以 TLS 启动，TLS 参数来自 internal/tlsutil。
*/
package server
