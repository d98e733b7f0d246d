package main

import (
	"log"

	"whatsapp-console/internal/api"
	"whatsapp-console/internal/campaign"
	"whatsapp-console/internal/config"
	"whatsapp-console/internal/database"
	"whatsapp-console/internal/logging"
	"whatsapp-console/internal/metrics"
	"whatsapp-console/internal/webhook"
	"whatsapp-console/internal/whatsapp"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	logging.Init(cfg.LogFile)
	database.InitDB(cfg)

	r := gin.Default()
	r.Use(api.CORS(cfg.FrontendOrigin))
	r.Use(api.RequestID())

	whatsappClient := whatsapp.NewClient(cfg)
	campaignService := campaign.NewService(database.DB, whatsappClient)

	webhookHandler := webhook.NewHandler(cfg, database.DB)
	contactHandler := api.NewContactHandler(database.DB)
	groupHandler := api.NewGroupHandler(database.DB)
	templateHandler := api.NewTemplateHandler(database.DB)
	messageHandler := api.NewMessageHandler(database.DB, whatsappClient)
	campaignHandler := api.NewCampaignHandler(campaignService)

	// Webhook Routes
	r.GET("/webhook", webhookHandler.Verify)
	r.POST("/webhook", webhookHandler.Receive)

	r.GET("/metrics", metrics.Handler())

	apiGroup := r.Group("/api")
	{
		// Contact Routes
		apiGroup.GET("/contacts", contactHandler.List)
		apiGroup.POST("/contacts", contactHandler.Create)
		apiGroup.GET("/contacts/export/csv", contactHandler.ExportCSV)
		apiGroup.POST("/contacts/import", contactHandler.Import)
		apiGroup.GET("/contacts/:id", contactHandler.Get)
		apiGroup.PUT("/contacts/:id", contactHandler.Update)
		apiGroup.DELETE("/contacts/:id", contactHandler.Delete)
		apiGroup.PATCH("/contacts/:id/status", contactHandler.UpdateStatus)
		apiGroup.PATCH("/contacts/:id/last-contacted", contactHandler.TouchLastContacted)

		// Group Routes
		apiGroup.GET("/groups", groupHandler.List)
		apiGroup.POST("/groups", groupHandler.Create)
		apiGroup.POST("/groups/import", groupHandler.ImportContacts)
		apiGroup.GET("/groups/:id", groupHandler.Get)
		apiGroup.PUT("/groups/:id", groupHandler.Update)
		apiGroup.DELETE("/groups/:id", groupHandler.Delete)
		apiGroup.POST("/groups/:id/contacts", groupHandler.AddContacts)
		apiGroup.DELETE("/groups/:id/contacts/:contactId", groupHandler.RemoveContact)

		// Template Routes
		apiGroup.GET("/templates", templateHandler.List)
		apiGroup.POST("/templates", templateHandler.Create)
		apiGroup.GET("/templates/:id", templateHandler.Get)
		apiGroup.PUT("/templates/:id", templateHandler.Update)
		apiGroup.DELETE("/templates/:id", templateHandler.Delete)
		apiGroup.PATCH("/templates/:id/used", templateHandler.MarkUsed)
		apiGroup.POST("/templates/:id/preview", templateHandler.Preview)

		// Message Routes
		apiGroup.GET("/messages", messageHandler.List)
		apiGroup.GET("/messages/contact/:contactId", messageHandler.ListByContact)
		apiGroup.POST("/messages/send", messageHandler.Send)
		apiGroup.PUT("/messages/:id/status", messageHandler.UpdateStatus)
		apiGroup.DELETE("/messages/:id", messageHandler.Delete)

		// Campaign Routes
		apiGroup.GET("/campaigns", campaignHandler.List)
		apiGroup.POST("/campaigns", campaignHandler.Create)
		apiGroup.GET("/campaigns/:id", campaignHandler.Get)
		apiGroup.PUT("/campaigns/:id", campaignHandler.Update)
		apiGroup.DELETE("/campaigns/:id", campaignHandler.Delete)
		apiGroup.POST("/campaigns/:id/contacts", campaignHandler.AddContacts)
		apiGroup.POST("/campaigns/:id/groups", campaignHandler.AddGroups)
		apiGroup.PATCH("/campaigns/:id/status", campaignHandler.UpdateStatus)
		apiGroup.PATCH("/campaigns/:id/messages/:contactId/status", campaignHandler.UpdateMessageStatus)
		apiGroup.POST("/campaigns/:id/send", campaignHandler.Send)
	}

	scheduler := campaign.NewScheduler(campaignService)
	if err := scheduler.Start(cfg.SchedulerInterval); err != nil {
		log.Fatalf("Failed to start campaign scheduler: %v", err)
	}
	defer scheduler.Stop()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
