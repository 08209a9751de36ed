// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Command imageflow 是 ImageFlow 的命令行入口。

# 子命令

  - serve     启动 HTTP API（默认 :8080）与 Prometheus 指标服务（默认 :9091）
  - generate  在终端中执行一次生成，可用 --out 保存图像
  - styles    列出可用风格及其模型
  - version   打印版本信息
  - health    探测运行中服务的 /health

# 中间件链

Recovery → RequestID → SecurityHeaders → OTelTracing → RequestLogger →
Metrics → RateLimiter → Auth（可选）→ SessionScope
*/
package main
