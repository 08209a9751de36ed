// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

// Package config 提供 ImageFlow 的配置管理功能。
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量（前缀 IMAGEFLOW）→ 验证器。
// 嵌套结构体的环境变量名按 env tag 逐级拼接，例如
// IMAGEFLOW_PROVIDERS_HUGGINGFACE_API_KEY。
package config
