package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/services/filehost"
)

type fileApi struct {
	signer *filehost.Signer
}

func registerFileAPI(g *echo.Group, signer *filehost.Signer) {
	api := fileApi{signer: signer}
	g.GET("/files/cv", api.downloadCV)
}

// downloadCV redirects to a signed, time-limited link to the requested CV.
func (api *fileApi) downloadCV(ctx echo.Context) error {
	publicID := ctx.QueryParam("publicId")
	if publicID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, filehost.ErrMissingID.Error())
	}

	link, err := api.signer.SignedURL(publicID, ctx.QueryParam("filename"), api.signer.TTL())
	if err != nil {
		if errors.Cause(err) == filehost.ErrMissingID {
			return echo.NewHTTPError(http.StatusBadRequest, filehost.ErrMissingID.Error())
		}
		return errors.Wrap(err, "signing download url")
	}
	return ctx.Redirect(http.StatusFound, link)
}
