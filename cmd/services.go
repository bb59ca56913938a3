package cmd

import (
	"msgcard/cache"
	"msgcard/core/card"
	"msgcard/repository"
	"msgcard/server"
)

// openCards 打开数据库并装配贺卡服务，返回的函数释放所有连接
func openCards() (*card.Service, repository.CardRepository, func(), error) {
	repo, closeRepo, err := server.OpenCardRepository(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	svc, _ := server.NewCardService(cfg, repo)
	return svc, repo, func() {
		cache.CloseRedis()
		closeRepo()
	}, nil
}
