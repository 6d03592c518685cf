package app

import "github.com/Freeeeeet/tutor_scheduler/internal/service"

// Services - набор сервисов, который получает внешний интерфейс (бот, API)
type Services struct {
	Accounts     *service.AccountService
	Availability *service.AvailabilityService
	Bookings     *service.BookingService
	Matches      *service.MatchService
}
