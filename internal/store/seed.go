package store

import (
	"context"

	"github.com/BayRex1/bayrex-apk/internal/models"
)

func demoApps() []models.App {
	icon := func(s string) *string { return &s }
	return []models.App{
		{
			Name:            "WhatsApp Messenger",
			Description:     "Бесплатный мессенджер для обмена сообщениями и звонками. Отправляйте сообщения, фото, видео, документы и совершайте бесплатные звонки.",
			Version:         "2.23.10",
			Category:        "Social",
			IconFilename:    icon("whatsapp_demo.png"),
			APKFilename:     "whatsapp_demo.apk",
			OriginalAPKName: "WhatsApp_v2.23.10.apk",
			FileSize:        45892000,
			Downloads:       1250,
			IsFeatured:      true,
		},
		{
			Name:            "Telegram",
			Description:     "Быстрый и безопасный мессенджер с облачным хранением и секретными чатами. Синхронизация между устройствами.",
			Version:         "9.5.0",
			Category:        "Social",
			IconFilename:    icon("telegram_demo.png"),
			APKFilename:     "telegram_demo.apk",
			OriginalAPKName: "Telegram_v9.5.0.apk",
			FileSize:        67345000,
			Downloads:       980,
			IsFeatured:      true,
		},
		{
			Name:            "Spotify Music",
			Description:     "Стриминговый сервис музыки и подкастов с миллионами треков. Создавайте плейлисты, открывайте новые треки.",
			Version:         "8.8.60",
			Category:        "Entertainment",
			IconFilename:    icon("spotify_demo.png"),
			APKFilename:     "spotify_demo.apk",
			OriginalAPKName: "Spotify_v8.8.60.apk",
			FileSize:        89231000,
			Downloads:       750,
		},
		{
			Name:            "YouTube",
			Description:     "Крупнейший видеохостинг в мире. Смотрите видео, слушайте музыку, создавайте плейлисты и подписывайтесь на каналы.",
			Version:         "18.45.43",
			Category:        "Entertainment",
			IconFilename:    icon("youtube_demo.png"),
			APKFilename:     "youtube_demo.apk",
			OriginalAPKName: "YouTube_v18.45.43.apk",
			FileSize:        120543000,
			Downloads:       2100,
			IsFeatured:      true,
		},
	}
}

// Seed inserts the demo catalog into an empty store and returns how many
// records were created.
func Seed(ctx context.Context, s Store) (int, error) {
	n, err := s.Len(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	apps := demoApps()
	for i := range apps {
		if err := s.Create(ctx, &apps[i]); err != nil {
			return i, err
		}
	}
	return len(apps), nil
}
