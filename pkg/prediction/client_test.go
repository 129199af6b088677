package prediction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForward(t *testing.T) {
	t.Run("Passes Query And Returns Upstream Response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, OptimalRoutePath, r.URL.Path)
			assert.Equal(t, "Maria Lopez", r.URL.Query().Get("vendedor"))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"orden":["1790012345001"]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)
		query := url.Values{}
		query.Set("vendedor", "Maria Lopez")

		status, body, err := client.Forward(context.Background(), OptimalRoutePath, query)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"orden":["1790012345001"]}`, string(body))
	})

	t.Run("Preserves Upstream Error Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"detail":"semana invalida"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)

		status, body, err := client.Forward(context.Background(), PredictPath, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Contains(t, string(body), "semana invalida")
	})

	t.Run("Unreachable Upstream", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", 500*time.Millisecond)

		_, _, err := client.Forward(context.Background(), PredictPath, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "prediction service unreachable")
	})
}

func TestPredict(t *testing.T) {
	t.Run("Bare Array Payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, PredictPath, r.URL.Path)
			assert.Equal(t, "Maria Lopez", r.URL.Query().Get("vendedor"))
			assert.Equal(t, "35", r.URL.Query().Get("semana"))
			w.Write([]byte(`[
				{"ruc": "1790012345001", "nombre": "Farmacia Central", "venta": 120.5, "cobranza": 30, "promocion": 5},
				{"ruc": "0990054321001", "nombre": "Botica del Valle", "venta": "75.25"}
			]`))
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)

		predictions, err := client.Predict(context.Background(), "Maria Lopez", 35)
		require.NoError(t, err)
		require.Len(t, predictions, 2)
		assert.Equal(t, "1790012345001", predictions[0].RUC)
		assert.Equal(t, "Farmacia Central", predictions[0].Name)
		assert.Equal(t, "120.5", predictions[0].Sale.String())
		assert.Equal(t, "30", predictions[0].Collection.String())
		assert.Equal(t, "75.25", predictions[1].Sale.String())
		assert.True(t, predictions[1].Collection.IsZero())
	})

	t.Run("Wrapped Payload With Variant Keys", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"predicciones": [
				{"cliente_ruc": 1790012345001, "nombre_comercial": "Farmacia Central", "venta_sugerida": 88}
			]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)

		predictions, err := client.Predict(context.Background(), "Maria Lopez", 35)
		require.NoError(t, err)
		require.Len(t, predictions, 1)
		assert.Equal(t, "1790012345001", predictions[0].RUC)
		assert.Equal(t, "Farmacia Central", predictions[0].Name)
		assert.Equal(t, "88", predictions[0].Sale.String())
	})

	t.Run("Rows Without RUC Are Skipped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"clientes": [
				{"nombre": "Sin RUC", "venta": 10},
				{"ruc": "1790012345001", "nombre": "Farmacia Central", "venta": 20}
			]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)

		predictions, err := client.Predict(context.Background(), "Maria Lopez", 35)
		require.NoError(t, err)
		require.Len(t, predictions, 1)
		assert.Equal(t, "1790012345001", predictions[0].RUC)
	})

	t.Run("Upstream Error Is Typed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"modelo no disponible"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)

		_, err := client.Predict(context.Background(), "Maria Lopez", 35)
		require.Error(t, err)

		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
		assert.Contains(t, string(upstream.Body), "modelo no disponible")
	})

	t.Run("Unrecognizable Payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"resultado": "ok"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)

		_, err := client.Predict(context.Background(), "Maria Lopez", 35)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no recognizable list field")
	})
}
