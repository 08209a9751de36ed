// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 ImageFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包。image、generator、api 等上层
模块共用这里的结构化错误体系。

# 核心类型

  - Error / ErrorCode — 结构化错误，含 HTTP 状态码、Retryable、Provider 标记
  - GetErrorCode / IsCode — 沿错误链提取或匹配错误码

# 错误码分层

  - 调用方可见：INVALID_INPUT、CANCELLED、ALL_PROVIDERS_UNAVAILABLE
  - 单次尝试：PROVIDER_FAILURE 及其细分（UNKNOWN_STYLE、NOT_AN_IMAGE、
    NO_IMAGE_URL、IMAGE_LOAD_FAILED、CIRCUIT_OPEN 等），只用于推进
    Provider 链、日志和指标
*/
package types
