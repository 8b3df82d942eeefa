package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供后端/端点/模块字段，供资源与代理请求日志复用。
func RequestFields(backend, endpoint, moduleKey, requestID string) logrus.Fields {
	fields := logrus.Fields{
		"backend":    backend,
		"endpoint":   endpoint,
		"module_key": moduleKey,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

// ServerFields 描述监听地址与后端选择方式，用于 startup/listen 日志。
func ServerFields(address, backend, moduleKey string, fixed bool) logrus.Fields {
	mode := "path"
	if fixed {
		mode = "fixed"
	}
	return logrus.Fields{
		"address":      address,
		"backend":      backend,
		"backend_mode": mode,
		"module_key":   moduleKey,
	}
}
