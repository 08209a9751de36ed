// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 ImageFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了图像生成、取消、历史查询、二进制结果下载、
风格与 provider 查询以及健康检查等端点，并提供统一的响应与错误处理。
所有 Handler 均遵循标准 net/http 接口。

# 核心类型

  - ImageHandler     — 生成 / 取消 / 历史 / blob 下载
  - CatalogHandler   — 风格表与 provider 列表
  - HealthHandler    — 健康检查（/health, /healthz, /ready, /version）
  - SessionRegistry  — 按 X-Session-ID 维护独立编排器，TTL 回收
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp + request_id）

# 错误映射

  - INVALID_INPUT             → 400
  - CANCELLED                 → 409
  - ALL_PROVIDERS_UNAVAILABLE → 503
  - NOT_FOUND                 → 404
  - 其他                       → 500
*/
package handlers
