package main

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/outbound-service/internal/application"
	"github.com/wms-platform/outbound-service/pkg/errors"
	"github.com/wms-platform/outbound-service/pkg/logging"
	"github.com/wms-platform/outbound-service/pkg/middleware"
)

// maxImageSize bounds the uploaded package image
const maxImageSize = 10 << 20

func getOverviewHandler(service *application.PickingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
		if err != nil {
			responder.RespondBadRequest("userId query parameter is required and must be an integer")
			return
		}

		overview, err := service.GetOverview(c.Request.Context(), application.GetOverviewQuery{UserID: userID})
		if err != nil {
			respond(responder, err)
			return
		}

		c.JSON(http.StatusOK, overview)
	}
}

func openSessionHandler(service *application.PickingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			UserID     int64 `json:"userId" binding:"required"`
			ShipmentID int64 `json:"shipmentId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondValidationError("invalid request body", middleware.ValidationDetails(err))
			return
		}

		session, err := service.OpenSession(c.Request.Context(), application.OpenSessionCommand{
			UserID:     req.UserID,
			ShipmentID: req.ShipmentID,
		})
		if err != nil {
			respond(responder, err)
			return
		}

		c.JSON(http.StatusCreated, session)
	}
}

func getSessionHandler(service *application.PickingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		session, err := service.GetSession(c.Request.Context(), application.GetSessionQuery{
			SessionID: c.Param("sessionId"),
		})
		if err != nil {
			respond(responder, err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func setSelectionHandler(service *application.PickingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			TaskIDs   []int64 `json:"taskIds"`
			SelectAll bool    `json:"selectAll"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondValidationError("invalid request body", middleware.ValidationDetails(err))
			return
		}

		session, err := service.SetSelection(c.Request.Context(), application.SetSelectionCommand{
			SessionID: c.Param("sessionId"),
			TaskIDs:   req.TaskIDs,
			SelectAll: req.SelectAll,
		})
		if err != nil {
			respond(responder, err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func dispatchHandler(service *application.PickingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		result, err := service.Dispatch(c.Request.Context(), application.DispatchCommand{
			SessionID: c.Param("sessionId"),
		})
		if err != nil {
			respond(responder, err)
			return
		}

		// A rejected batch is a valid, fully-formed answer, not a server
		// error.
		status := http.StatusOK
		if result.Outcome == application.DispatchRejected {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, result)
	}
}

func refreshSessionHandler(service *application.PickingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		session, err := service.RefreshSession(c.Request.Context(), application.RefreshSessionCommand{
			SessionID: c.Param("sessionId"),
		})
		if err != nil {
			respond(responder, err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func closeSessionHandler(service *application.PickingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		err := service.CloseSession(c.Request.Context(), application.CloseSessionCommand{
			SessionID: c.Param("sessionId"),
		})
		if err != nil {
			respond(responder, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func listShipmentsHandler(service *application.VerificationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		shipments, err := service.ListOutboundShipments(c.Request.Context())
		if err != nil {
			respond(responder, err)
			return
		}

		c.JSON(http.StatusOK, shipments)
	}
}

func listPackagesHandler(service *application.VerificationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		shipmentID, err := strconv.ParseInt(c.Param("shipmentId"), 10, 64)
		if err != nil {
			responder.RespondBadRequest("shipmentId must be an integer")
			return
		}

		var filter struct {
			SKUCode string `form:"skuCode" json:"skuCode" binding:"omitempty,sku"`
		}
		if err := c.ShouldBindQuery(&filter); err != nil {
			responder.RespondValidationError("invalid query parameters", middleware.ValidationDetails(err))
			return
		}

		packages, err := service.ListShipmentPackages(c.Request.Context(), application.ListShipmentPackagesQuery{
			ShipmentID: shipmentID,
			SKUCode:    filter.SKUCode,
		})
		if err != nil {
			respond(responder, err)
			return
		}

		c.JSON(http.StatusOK, packages)
	}
}

func verificationHistoryHandler(service *application.VerificationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		shipmentID, err := strconv.ParseInt(c.Param("shipmentId"), 10, 64)
		if err != nil {
			responder.RespondBadRequest("shipmentId must be an integer")
			return
		}

		logs, err := service.GetVerificationHistory(c.Request.Context(), shipmentID)
		if err != nil {
			respond(responder, err)
			return
		}

		c.JSON(http.StatusOK, logs)
	}
}

func verifyPackageHandler(service *application.VerificationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		packageID, err := strconv.ParseInt(c.Param("packageId"), 10, 64)
		if err != nil {
			responder.RespondBadRequest("packageId must be an integer")
			return
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			responder.RespondValidationError("image file is required", nil)
			return
		}
		if fileHeader.Size > maxImageSize {
			responder.RespondValidationError("image exceeds the 10MB limit", nil)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			responder.RespondInternalError(err)
			return
		}
		defer file.Close()

		image, err := io.ReadAll(io.LimitReader(file, maxImageSize))
		if err != nil {
			responder.RespondInternalError(err)
			return
		}

		shipmentID, _ := strconv.ParseInt(c.PostForm("shipmentId"), 10, 64)
		userID, _ := strconv.ParseInt(c.PostForm("userId"), 10, 64)

		result, err := service.VerifyPackage(c.Request.Context(), application.VerifyPackageCommand{
			PackageID:  packageID,
			ShipmentID: shipmentID,
			UserID:     userID,
			Image:      image,
			Filename:   fileHeader.Filename,
		})
		if err != nil {
			respond(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func respond(responder *middleware.ErrorResponder, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		responder.RespondWithAppError(appErr)
		return
	}
	responder.RespondInternalError(err)
}
