// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动与优雅关闭。

# 概述

Manager 封装 net/http.Server，统一管理监听、服务、关闭与错误传播。
ImageFlow 用两个 Manager 分别承载 API 端口与 Prometheus 指标端口，
由 cmd/imageflow 通过 errgroup 并发运行。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Run/Shutdown 等生命周期方法。
  - Config：监听地址、读写超时、空闲超时、最大请求头大小与优雅关闭超时。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务。
  - 阻塞运行：Run 在 ctx 结束时优雅关闭，服务异常时返回错误。
  - 错误传播：Errors() 返回异步错误通道。
  - 状态查询：IsRunning/Addr/ListenAddr。
*/
package server
