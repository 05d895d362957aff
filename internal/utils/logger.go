package utils

import (
	"go.uber.org/zap"
)

func NewLogger(dev bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopmentConfig().Build()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
